// Public domain.

package spectral

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tunbehaun273/Multi-instrument-tutorial/internal/param"
)

// Cached memoizes bin integrals of an inner model.
//
// The key is the exact bit pattern of every parameter value and both bin
// edges, so a hit is always the value the inner model would return.  This
// pays off for external evaluators costing far more than a map lookup.
// The optimizer revisits points rarely but covariance estimation and flux
// point error scans revisit them often.
type Cached struct {
	Inner Model
	TTL   time.Duration
	c     *cache.Cache
}

// NewCached wraps inner.  Entries expire after ttl; zero keeps them
// for the life of the model.
func NewCached(inner Model, ttl time.Duration) *Cached {
	exp := ttl
	if exp <= 0 {
		ttl, exp = 0, cache.NoExpiration
	}
	// cleanup interval 0: no janitor goroutine, expired entries are
	// dropped lazily on Get.
	return &Cached{Inner: inner, TTL: ttl, c: cache.New(exp, 0)}
}

func (m *Cached) DNDE(e float64) float64 { return m.Inner.DNDE(e) }

func (m *Cached) Integral(emin, emax float64) float64 {
	k := m.key(emin, emax)
	if v, ok := m.c.Get(k); ok {
		return v.(float64)
	}
	v := m.Inner.Integral(emin, emax)
	m.c.Set(k, v, cache.DefaultExpiration)
	return v
}

func (m *Cached) key(emin, emax float64) string {
	var b strings.Builder
	buf := make([]byte, 0, 20)
	put := func(x float64) {
		buf = strconv.AppendUint(buf[:0], math.Float64bits(x), 36)
		b.Write(buf)
		b.WriteByte('|')
	}
	for _, p := range m.Inner.Parameters() {
		put(p.Value)
	}
	put(emin)
	put(emax)
	return b.String()
}

// Len returns the number of cached integrals.
func (m *Cached) Len() int { return m.c.ItemCount() }

func (m *Cached) Parameters() []*param.Parameter { return m.Inner.Parameters() }

// Clone returns a copy with cloned parameters and an empty cache.
func (m *Cached) Clone() Model {
	return NewCached(m.Inner.Clone(), m.TTL)
}

func (m *Cached) Type() string { return m.Inner.Type() }
