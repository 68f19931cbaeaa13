package patient

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// IDPrefix starts every generated patient identifier.
const IDPrefix = "PAT-"

// GeneratePatientID produces a candidate identifier of the form PAT-NNNNNN.
// Candidates are random, not sequential; the database unique constraint is
// the final authority and callers retry on collision.
func GeneratePatientID() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate patient id: %w", err)
	}
	return fmt.Sprintf("%s%06d", IDPrefix, n.Int64()), nil
}
