package enum

import (
	"context"
	"fmt"
	"sync"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Cache хранит опубликованные снапшоты типов. Снапшот живёт до явного
// сброса, поэтому записи без срока жизни. Параллельные промахи по одному
// типу сливаются в одну загрузку.
type Cache struct {
	store *gocache.Cache
	loads singleflight.Group

	// epoch растёт при Reset, gens[key] при сбросе одного типа; загрузка,
	// начатая до сброса, свой снапшот не публикует.
	mu    sync.Mutex
	epoch uint64
	gens  map[string]uint64
}

// generation: метка состояния сбросов для key.
type generation struct{ epoch, gen uint64 }

func NewCache() *Cache {
	return &Cache{
		store: gocache.New(gocache.NoExpiration, 0),
		gens:  make(map[string]uint64),
	}
}

func (c *Cache) generation(key string) generation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return generation{epoch: c.epoch, gen: c.gens[key]}
}

func (c *Cache) get(key string) (*snapshot, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	s, ok := v.(*snapshot)
	return s, ok
}

// publish кладёт снапшот, если с момента g не было сбросов.
func (c *Cache) publish(key string, s *snapshot, g generation) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g != (generation{epoch: c.epoch, gen: c.gens[key]}) {
		return false
	}
	c.store.Set(key, s, gocache.NoExpiration)
	return true
}

func (c *Cache) discard(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	c.store.Delete(key)
}

// Len: число загруженных типов.
func (c *Cache) Len() int { return c.store.ItemCount() }

// Reset сбрасывает все снапшоты (тесты, перезагрузка каталога).
// Загрузки, идущие в этот момент, результат не публикуют.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.store.Flush()
}

// snapshot: неизменяемое состояние типа после загрузки.
type snapshot struct {
	all    []*Instance
	byID   map[int64]*Instance
	byName map[string]*Instance

	parts    sync.Once
	active   []*Instance
	inactive []*Instance
}

// partitions лениво делит all на активные и неактивные.
func (s *snapshot) partitions() (active, inactive []*Instance) {
	s.parts.Do(func() {
		s.active = make([]*Instance, 0, len(s.all))
		for _, e := range s.all {
			if e.Active() {
				s.active = append(s.active, e)
			} else {
				s.inactive = append(s.inactive, e)
			}
		}
	})
	return s.active, s.inactive
}

// snapshot возвращает текущий снапшот, загружая его при промахе.
// Загрузка общая для всех ждущих и не зависит от отмены ctx одного из них;
// каждый вызывающий перестаёт ждать по своему ctx.
func (t *Type) snapshot(ctx context.Context) (*snapshot, error) {
	if s, ok := t.cache.get(t.key); ok {
		return s, nil
	}
	loadCtx := context.WithoutCancel(ctx)
	ch := t.cache.loads.DoChan(t.key, func() (any, error) {
		if s, ok := t.cache.get(t.key); ok {
			return s, nil
		}
		g := t.cache.generation(t.key)
		s, err := t.load(loadCtx)
		if err != nil {
			return nil, err
		}
		if !t.cache.publish(t.key, s, g) {
			t.log.Debug(loadCtx, "enum snapshot discarded, purged during load", "type", t.name)
		}
		return s, nil
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: load %s: %w", t.name, t.opts.Table, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*snapshot), nil
	}
}

func (t *Type) load(ctx context.Context) (*snapshot, error) {
	rows, err := t.src.LoadRows(ctx, t.query())
	if err != nil {
		return nil, fmt.Errorf("%s: load %s: %w", t.name, t.opts.Table, err)
	}
	freeze := t.freezes()
	s := &snapshot{
		all:    make([]*Instance, 0, len(rows)),
		byID:   make(map[int64]*Instance, len(rows)),
		byName: make(map[string]*Instance, len(rows)),
	}
	for _, row := range rows {
		e, err := newInstance(t, row, freeze)
		if err != nil {
			return nil, err
		}
		if _, dup := s.byID[e.id]; dup {
			if err := t.duplicate(ctx, "id", e.id); err != nil {
				return nil, err
			}
		}
		if _, dup := s.byName[e.name]; dup {
			if err := t.duplicate(ctx, t.opts.NameColumn, e.name); err != nil {
				return nil, err
			}
		}
		s.all = append(s.all, e)
		s.byID[e.id] = e
		s.byName[e.name] = e
	}
	t.log.Debug(ctx, "enum loaded", "type", t.name, "members", len(s.all), "frozen", freeze)
	return s, nil
}

func (t *Type) duplicate(ctx context.Context, col string, v any) error {
	if t.opts.RejectDuplicates {
		return fmt.Errorf("%s: %w: %s=%v", t.name, ErrDuplicateKey, col, v)
	}
	t.log.Warn(ctx, "duplicate enum key, last row wins", "type", t.name, "column", col, "value", v)
	return nil
}

// purge снимает снапшот без проверки разрешения.
func (t *Type) purge() {
	t.cache.discard(t.key)
}
