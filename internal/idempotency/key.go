// Package idempotency вычисляет детерминированный ключ идемпотентности
// для операции начисления баллов.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Key возвращает детерминированный отпечаток тройки (пользователь, действие,
// метаданные). Одинаковые входные данные всегда дают одинаковый ключ;
// различие в метаданных (например, другой идентификатор документа) даёт
// другой ключ, поэтому одно и то же действие может быть законно начислено
// для разных целевых сущностей.
func Key(userID int64, action string, metadata map[string]string) string {
	var b strings.Builder

	b.WriteString(strconv.FormatInt(userID, 10))
	b.WriteByte('\n')
	b.WriteString(strconv.Quote(action))

	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Каноническая сериализация: ключи в лексикографическом порядке,
	// компоненты экранированы, чтобы исключить коллизии разделителей.
	for _, k := range keys {
		b.WriteByte('\n')
		b.WriteString(strconv.Quote(k))
		b.WriteByte('=')
		b.WriteString(strconv.Quote(metadata[k]))
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
