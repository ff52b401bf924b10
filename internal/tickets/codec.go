package tickets

import (
	"image"
	"strings"

	"github.com/google/uuid"
)

// Codec turns a credential payload into a scannable image. Implementations
// live outside this module; they must produce an image even for an empty payload.
type Codec interface {
	Encode(payload string) (image.Image, error)
}

// NewCredentialCode generates the opaque payload printed on a ticket
func NewCredentialCode() string {
	return "VP-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
