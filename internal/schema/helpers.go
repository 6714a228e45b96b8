// file: internal/schema/helpers.go
package schema

// calculatePreview returns a short, printable preview of a message body
// for inclusion in error context. Control characters are replaced so the
// preview is safe to log.
func calculatePreview(data []byte) string {
	const maxPreviewLen = 100
	previewLen := len(data)
	if previewLen > maxPreviewLen {
		previewLen = maxPreviewLen
	}
	preview := make([]byte, previewLen)
	copy(preview, data[:previewLen])
	for i, b := range preview {
		if b < 32 || b > 126 {
			preview[i] = '.'
		}
	}
	return string(preview)
}
