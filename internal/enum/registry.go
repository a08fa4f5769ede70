package enum

import (
	"fmt"
	"sort"
	"sync"

	"refenum/internal/logger"
	"refenum/internal/naming"
)

// Registry: явный реестр справочных типов. Типы объявляются через Define
// и создаются лениво при первом обращении по имени.
type Registry struct {
	mu    sync.RWMutex
	src   Source
	cache *Cache
	log   *logger.Logger

	defs  map[string]definition
	types map[string]*Type
}

type definition struct {
	name string
	opts Options
	src  Source
}

func NewRegistry(src Source, log *logger.Logger) *Registry {
	return &Registry{
		src:   src,
		cache: NewCache(),
		log:   log,
		defs:  make(map[string]definition),
		types: make(map[string]*Type),
	}
}

// Define объявляет тип поверх источника реестра.
func (r *Registry) Define(name string, opts Options) error {
	return r.DefineWithSource(name, r.src, opts)
}

// DefineWithSource объявляет тип со своим источником.
func (r *Registry) DefineWithSource(name string, src Source, opts Options) error {
	if src == nil {
		return fmt.Errorf("%w: %s: nil source", ErrInvalidOptions, name)
	}
	opts = opts.withDefaults(name)
	if err := opts.validate(name); err != nil {
		return err
	}
	k := naming.Key(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.defs[k]; ok {
		return fmt.Errorf("%w: %s (as %s)", ErrDuplicateType, name, prev.name)
	}
	r.defs[k] = definition{name: name, opts: opts, src: src}
	return nil
}

// Type возвращает тип по имени (без учёта регистра и подчёркиваний).
func (r *Registry) Type(name string) (*Type, error) {
	k := naming.Key(name)
	r.mu.RLock()
	t, ok := r.types[k]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.types[k]; ok {
		return t, nil
	}
	def, ok := r.defs[k]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	t, err := NewType(def.name, def.src, def.opts, WithCache(r.cache), WithLogger(r.log))
	if err != nil {
		return nil, err
	}
	r.types[k] = t
	return t, nil
}

// MustType: для инициализации, где отсутствие типа: ошибка программы.
func (r *Registry) MustType(name string) *Type {
	t, err := r.Type(name)
	if err != nil {
		panic(err)
	}
	return t
}

// Has: объявлен ли тип.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[naming.Key(name)]
	return ok
}

// Names: объявленные имена типов, по алфавиту.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d.name)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Reset сбрасывает снапшоты всех типов реестра.
func (r *Registry) Reset() { r.cache.Reset() }

func (r *Registry) Cache() *Cache { return r.cache }
