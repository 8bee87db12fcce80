package domain

import (
	"encoding/json"
	"math"
	"math/big"

	"github.com/pkg/errors"
)

// ErrInvalidInput é a única falha que atravessa o core. A mensagem é exibida ao usuário.
var ErrInvalidInput = errors.New("Input must be a non-negative integer")

// ParseInput valida um valor bruto (item de batch, JSON decodificado) e devolve n.
//
// Aceita inteiros e floats integrais (5.0). Strings, bool, nil, frações, NaN/Inf e
// negativos são ErrInvalidInput; nada é convertido silenciosamente.
func ParseInput(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return checkInt(int64(x))
	case int32:
		return checkInt(int64(x))
	case int64:
		return checkInt(x)
	case uint:
		if uint64(x) > math.MaxInt {
			return 0, ErrInvalidInput
		}
		return int(x), nil
	case float64:
		return checkFloat(x)
	case float32:
		return checkFloat(float64(x))
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return checkInt(i)
		}
		// "5.0", "1e3"
		f, ok := new(big.Float).SetString(string(x))
		if !ok || !f.IsInt() {
			return 0, ErrInvalidInput
		}
		i, acc := f.Int64()
		if acc != big.Exact {
			return 0, ErrInvalidInput
		}
		return checkInt(i)
	}
	return 0, ErrInvalidInput
}

func checkInt(i int64) (int, error) {
	if i < 0 || i > math.MaxInt {
		return 0, ErrInvalidInput
	}
	return int(i), nil
}

func checkFloat(f float64) (int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f < 0 || f >= math.MaxInt64 {
		return 0, ErrInvalidInput
	}
	return int(f), nil
}
