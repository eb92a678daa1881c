package arena_test

import (
	"errors"
	"log"
	"os"
	"testing"

	"github.com/jcorbin/gortx/internal/arena"
	"github.com/jcorbin/gortx/internal/logio"
	"github.com/jcorbin/gortx/internal/panicerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	name string
	kids []int
}

var itemResets int

func (it *item) Reset() {
	itemResets++
	*it = item{}
}

type plain struct {
	n    int
	tags []string
}

func Test_Pool(t *testing.T) {
	for _, tc := range []poolTestCase{
		poolTest("basic",
			"init", func(t *testing.T, p *arena.Pool[item]) {
				p.BucketSize = 2
				require.Equal(t, 0, p.Len(), "expected empty pool")
				require.Equal(t, 0, p.Cap(), "expected no buckets before first use")
			},

			"fill past one bucket", func(t *testing.T, p *arena.Pool[item]) {
				a, b, c := p.Next(), p.Next(), p.Next()
				a.name, b.name, c.name = "a", "b", "c"
				assert.NotSame(t, a, b, "expected distinct slots")
				assert.NotSame(t, b, c, "expected distinct slots")
				assert.Equal(t, 3, p.Len(), "expected 3 live")
				assert.Equal(t, 4, p.Cap(), "expected 2 buckets")
				assert.Equal(t, arena.PoolDump{
					Size:    2,
					Cur:     1,
					InUse:   []int{2, 1},
					WasUsed: []int{2, 1},
				}, p.Dump())
				assert.Equal(t, "a", a.name, "expected first slot undisturbed by bucket growth")
			},

			"reset keeps capacity", func(t *testing.T, p *arena.Pool[item]) {
				p.Reset()
				assert.Equal(t, 0, p.Len(), "expected no live allocations")
				assert.Equal(t, 4, p.Cap(), "expected capacity retained")
				assert.Equal(t, uint32(1), p.Gen(), "expected generation bump")
			},

			"recycled slots are reset", func(t *testing.T, p *arena.Pool[item]) {
				before := itemResets
				a := p.Next()
				assert.Equal(t, item{}, *a, "expected a zero item")
				assert.Equal(t, before+1, itemResets, "expected Reset called on recycle")
				a.kids = append(a.kids, 1, 2, 3)

				p.Next()
				p.Next()
				assert.Equal(t, before+3, itemResets, "expected every reused slot reset")
				p.Next()
				assert.Equal(t, before+3, itemResets, "expected fresh slot not reset")
			},
		),

		poolTest("handles",
			"get before and after reset", func(t *testing.T, p *arena.Pool[item]) {
				ref, it := p.Alloc()
				it.name = "x"
				got, ok := p.Get(ref)
				require.True(t, ok, "expected live handle")
				assert.Same(t, it, got, "expected handle to resolve to the allocation")

				p.Reset()
				got, ok = p.Get(ref)
				assert.False(t, ok, "expected stale handle after reset")
				assert.Nil(t, got)

				_, again := p.Alloc()
				_, ok = p.Get(ref)
				assert.False(t, ok, "expected stale handle even once its slot is reused")
				assert.Equal(t, "", again.name)
			},
		),

		poolTest("limit",
			"alloc past limit", func(t *testing.T, p *arena.Pool[item]) {
				p.Limit = 2
				p.Next()
				p.Next()
				err := panicerr.Recover("alloc", func() error {
					p.Next()
					return nil
				})
				require.Error(t, err, "expected limit panic")
				var lim arena.LimitError
				require.True(t, errors.As(err, &lim), "expected a LimitError, got %v", err)
				assert.Equal(t, arena.LimitError{Limit: 2, Op: "alloc"}, lim)
			},

			"reset clears the limit", func(t *testing.T, p *arena.Pool[item]) {
				p.Reset()
				assert.NotPanics(t, func() {
					p.Next()
					p.Next()
				})
			},
		),
	} {
		t.Run(tc.name, func(t *testing.T) {
			tcLogOut := &logio.Writer{Logf: t.Logf}
			log.SetOutput(tcLogOut)
			defer log.SetOutput(os.Stderr)

			var p arena.Pool[item]
			defer func() {
				if t.Failed() {
					t.Logf("pool: %+v", p.Dump())
				}
			}()

			for _, step := range tc.steps {
				if !t.Run(step.name, func(t *testing.T) {
					stepLogOut := &logio.Writer{Logf: t.Logf}
					log.SetOutput(stepLogOut)
					defer log.SetOutput(tcLogOut)

					isolateTest(t, step.bind(&p))
				}) {
					break
				}
			}
		})
	}
}

func Test_Pool_zeroes(t *testing.T) {
	var p arena.Pool[plain]
	p.BucketSize = 1
	a := p.Next()
	a.n = 7
	a.tags = []string{"<n>"}
	p.Reset()
	b := p.Next()
	assert.Same(t, a, b, "expected the first slot reused")
	assert.Equal(t, plain{}, *b, "expected a slot without Reset to be zeroed")
}

func isolateTest(t *testing.T, f func(t *testing.T)) {
	if err := panicerr.Recover(t.Name(), func() error {
		f(t)
		return nil
	}); err != nil {
		t.Logf("%+v", err)
		t.Fail()
	}
}

func poolTest(name string, args ...interface{}) (tc poolTestCase) {
	tc.name = name
	for i := 0; i < len(args); i++ {
		var step poolTestStep

		step.name = args[i].(string)

		if i++; i >= len(args) {
			panic("poolTest: missing function argument after name")
		}
		step.f = args[i].(func(t *testing.T, p *arena.Pool[item]))

		tc.steps = append(tc.steps, step)
	}
	return tc
}

type poolTestCase struct {
	name  string
	steps []poolTestStep
}

type poolTestStep struct {
	name string
	f    func(t *testing.T, p *arena.Pool[item])

	p *arena.Pool[item]
}

func (step poolTestStep) bind(p *arena.Pool[item]) func(t *testing.T) {
	step.p = p
	return step.boundTest
}

func (step poolTestStep) boundTest(t *testing.T) {
	step.f(t, step.p)
}
