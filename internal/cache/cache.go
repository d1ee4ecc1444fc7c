package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/ppiankov/chronosight/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

const keyPrefix = "chronosight:v1:"

var folder = cases.Fold()

// ContextKey generates a cache key for a resolved location. Names are
// NFC-normalized, case-folded and whitespace-collapsed so "Statue of
// Liberty" and " statue  OF liberty" share an entry. Scope separates
// providers and models.
func ContextKey(req model.LocationRequest, scope string) string {
	var id string
	switch req.Kind {
	case model.ByCoordinates:
		id = "coords:" + req.Coordinates.DisplayName()
	default:
		id = "name:" + NormalizeName(req.Name)
	}
	hash := sha256.Sum256([]byte(scope + "\x00" + id))
	return keyPrefix + hex.EncodeToString(hash[:])
}

// NormalizeName folds a location name into its canonical cache form
func NormalizeName(name string) string {
	name = norm.NFC.String(name)
	name = folder.String(name)
	return strings.Join(strings.Fields(name), " ")
}
