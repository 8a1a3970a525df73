package validation

import (
	"github.com/deppfellow/memberships/internal/model"
	"github.com/go-playground/validator/v10"
)

// IsValidCPF checks a CPF's length and both check digits. Punctuation is
// ignored; sequences of one repeated digit are rejected.
func IsValidCPF(raw string) bool {
	cpf := model.OnlyDigits(raw)
	if len(cpf) != 11 {
		return false
	}

	allSame := true
	for i := 1; i < len(cpf); i++ {
		if cpf[i] != cpf[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return false
	}

	digits := make([]int, 11)
	for i := range cpf {
		digits[i] = int(cpf[i] - '0')
	}

	return checkDigit(digits[:9]) == digits[9] && checkDigit(digits[:10]) == digits[10]
}

// checkDigit computes the modulo 11 check digit over the given prefix.
func checkDigit(prefix []int) int {
	sum := 0
	weight := len(prefix) + 1
	for _, d := range prefix {
		sum += d * weight
		weight--
	}
	rest := (sum * 10) % 11
	if rest == 10 {
		return 0
	}
	return rest
}

func validateCPF(fl validator.FieldLevel) bool {
	return IsValidCPF(fl.Field().String())
}
