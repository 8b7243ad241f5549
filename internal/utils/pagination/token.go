package pagination

import (
	"encoding/base64"
	"fmt"
)

// EncodeToken creates an opaque cursor from the last taxpayer ID of a page.
// Clients pass it back verbatim to resume listing after that household.
func EncodeToken(taxpayerID string) string {
	return base64.StdEncoding.EncodeToString([]byte(taxpayerID))
}

// DecodeToken parses a cursor back into the taxpayer ID it points at.
func DecodeToken(token string) (string, error) {
	decodedBytes, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	if len(decodedBytes) == 0 {
		return "", fmt.Errorf("invalid pagination token format (empty)")
	}
	return string(decodedBytes), nil
}
