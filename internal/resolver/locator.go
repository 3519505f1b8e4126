package resolver

import (
	"encoding/hex"
	"path"
	"strings"

	"github.com/zeebo/blake3"
)

// Locator maps an artifact to a storage location token. It must be
// deterministic and should be injective over artifact ids.
type Locator func(pipelineName, artifactID string) string

// DefaultLocator returns "artifacts/<pipeline>/<id>-<digest>". The digest
// keeps tokens unique even when sanitising collapses distinct ids.
func DefaultLocator(pipelineName, artifactID string) string {
	sum := blake3.Sum256([]byte(pipelineName + "\x00" + artifactID))
	return path.Join("artifacts", sanitize(pipelineName), sanitize(artifactID)+"-"+hex.EncodeToString(sum[:6]))
}

// sanitize keeps a token readable and free of path separators.
func sanitize(s string) string {
	if s == "" {
		return "_"
	}
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
