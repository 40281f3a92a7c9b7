package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/lemonscanner/lemon-scanner/internal/recall"
)

// NaturalKey is the content identity of a recall: the hex SHA-256 of its
// model id, reason and three dates. Null dates hash as empty fields.
func NaturalKey(modelID uint, reason string, prodFrom, prodTo, recallDate *time.Time) string {
	fields := []string{
		strconv.FormatUint(uint64(modelID), 10),
		reason,
		recall.FormatDate(prodFrom),
		recall.FormatDate(prodTo),
		recall.FormatDate(recallDate),
	}
	sum := sha256.Sum256([]byte(strings.Join(fields, "\x1f")))
	return hex.EncodeToString(sum[:])
}
