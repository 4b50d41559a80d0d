// Package validation содержит функции валидации входных данных.
package validation

const (
	maxActionCodeLen = 64
	maxMetadataPairs = 32
	maxMetadataLen   = 256
)

// IsValidActionCode проверяет код действия: непустой snake_case
// из строчных латинских букв, цифр и подчёркиваний.
func IsValidActionCode(code string) bool {
	if code == "" || len(code) > maxActionCodeLen {
		return false
	}

	for i := 0; i < len(code); i++ {
		ch := code[i]
		switch {
		case ch >= 'a' && ch <= 'z':
		case ch >= '0' && ch <= '9':
		case ch == '_':
		default:
			return false
		}
	}

	if code[0] == '_' || code[len(code)-1] == '_' {
		return false
	}

	return true
}

// IsValidMetadata проверяет карту метаданных: ограниченное число пар,
// непустые ключи и разумная длина значений. Семантика пар для движка
// непрозрачна, ограничения защищают только канонизацию и хранилище.
func IsValidMetadata(metadata map[string]string) bool {
	if len(metadata) > maxMetadataPairs {
		return false
	}

	for k, v := range metadata {
		if k == "" || len(k) > maxMetadataLen || len(v) > maxMetadataLen {
			return false
		}
	}

	return true
}
