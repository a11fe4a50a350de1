package descriptor

import (
	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheSize is the number of parsed descriptors a Cache keeps.
const DefaultCacheSize = 4096

// Parser resolves descriptors to parsed types.
type Parser interface {
	Field(desc string) (Type, error)
	Method(desc string) (MethodType, error)
}

// Cache memoizes parsed descriptors. It is owned by whoever runs an analysis
// and handed to it explicitly; it is safe for concurrent use.
type Cache struct {
	fields  *lru.Cache
	methods *lru.Cache
}

// NewCache creates a cache holding up to size entries of each kind. A
// non-positive size selects DefaultCacheSize.
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	fields, _ := lru.New(size)
	methods, _ := lru.New(size)
	return &Cache{fields: fields, methods: methods}
}

// Field parses a field descriptor, consulting the cache first.
func (c *Cache) Field(desc string) (Type, error) {
	if v, ok := c.fields.Get(desc); ok {
		return v.(Type), nil
	}
	t, err := ParseField(desc)
	if err != nil {
		return Type{}, err
	}
	c.fields.Add(desc, t)
	return t, nil
}

// Method parses a method descriptor, consulting the cache first.
func (c *Cache) Method(desc string) (MethodType, error) {
	if v, ok := c.methods.Get(desc); ok {
		return v.(MethodType), nil
	}
	m, err := ParseMethod(desc)
	if err != nil {
		return MethodType{}, err
	}
	c.methods.Add(desc, m)
	return m, nil
}

// Len is the number of cached descriptors.
func (c *Cache) Len() int {
	return c.fields.Len() + c.methods.Len()
}

// direct parses without memoization.
type direct struct{}

func (direct) Field(desc string) (Type, error)        { return ParseField(desc) }
func (direct) Method(desc string) (MethodType, error) { return ParseMethod(desc) }

// Direct is a Parser that parses every descriptor afresh.
var Direct Parser = direct{}
