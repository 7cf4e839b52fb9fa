package utils

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// GenerateNanoIDWithPrefix creates a prefixed row ID, e.g. "sacc_x41k9w2q".
func GenerateNanoIDWithPrefix(prefix string, length int) string {
	alphabet := "abcdefghijklmnopqrstuvwxyz0123456789"
	id, err := gonanoid.Generate(alphabet, length)
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%s_%s", prefix, id)
}
