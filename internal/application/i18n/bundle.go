package i18n

import (
	"errors"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/avatarctic/services-marketplace/go/internal/core/domain/fault"
)

var (
	errInvalidJSON = errors.New("bundle is not valid JSON")
	errNotObject   = errors.New("bundle root is not an object")
	errNoMessages  = errors.New("bundle holds no messages")
)

// Bundle is the immutable message set of one locale. Keys are dotted paths
// into the nested JSON document, e.g. "gate.upgrade.title".
type Bundle struct {
	locale string
	doc    gjson.Result
	size   int
}

// ParseBundle validates data as a non-empty nested mapping of strings.
// Failures are structural faults.
func ParseBundle(locale string, data []byte) (*Bundle, error) {
	op := "parse bundle " + locale
	if !gjson.ValidBytes(data) {
		return nil, fault.Structural(op, errInvalidJSON)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fault.Structural(op, errNotObject)
	}
	size := 0
	walk("", doc, func(string, string) { size++ })
	if size == 0 {
		return nil, fault.Structural(op, errNoMessages)
	}
	return &Bundle{locale: locale, doc: doc, size: size}, nil
}

// Locale returns the locale the bundle was loaded for.
func (b *Bundle) Locale() string { return b.locale }

// Len returns the number of messages.
func (b *Bundle) Len() int { return b.size }

// Lookup resolves a dotted key.
func (b *Bundle) Lookup(key string) (string, bool) {
	if b == nil || key == "" {
		return "", false
	}
	r := b.doc.Get(key)
	if r.Type != gjson.String {
		return "", false
	}
	return r.String(), true
}

// Messages flattens the bundle into dotted keys.
func (b *Bundle) Messages() map[string]string {
	out := make(map[string]string, b.size)
	walk("", b.doc, func(k, v string) { out[k] = v })
	return out
}

// Keys returns the dotted keys in sorted order.
func (b *Bundle) Keys() []string {
	keys := make([]string, 0, b.size)
	walk("", b.doc, func(k, _ string) { keys = append(keys, k) })
	sort.Strings(keys)
	return keys
}

func walk(prefix string, node gjson.Result, fn func(key, value string)) {
	node.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		if prefix != "" {
			key = prefix + "." + key
		}
		switch {
		case v.IsObject():
			walk(key, v, fn)
		case v.Type == gjson.String:
			fn(key, v.String())
		}
		return true
	})
}
