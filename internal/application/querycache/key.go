package querycache

import "strings"

// Key identifies a cached resource: a resource name plus optional parameters.
// Keys are comparable and safe to use as map keys.
type Key struct {
	resource string
	params   string
}

// NewKey builds a key such as NewKey("cities", "SP") -> "cities/SP".
func NewKey(resource string, params ...string) Key {
	return Key{resource: resource, params: strings.Join(params, "/")}
}

// Resource returns the resource name the key belongs to.
func (k Key) Resource() string { return k.resource }

func (k Key) String() string {
	if k.params == "" {
		return k.resource
	}
	return k.resource + "/" + k.params
}
