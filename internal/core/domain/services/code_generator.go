package services

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"orderflow/internal/core/domain/model/order"
)

var codeSpace = big.NewInt(10000)

// RandomCodeGenerator draws handover codes from crypto/rand.
type RandomCodeGenerator struct{}

var _ order.CodeSource = RandomCodeGenerator{}

func NewRandomCodeGenerator() RandomCodeGenerator {
	return RandomCodeGenerator{}
}

// NewCode returns four decimal digits, zero padded.
func (RandomCodeGenerator) NewCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("read random code: %w", err)
	}
	return fmt.Sprintf("%0*d", order.CodeLength, n.Int64()), nil
}
