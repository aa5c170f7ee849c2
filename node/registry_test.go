package node

import (
	"testing"

	"github.com/graphkit/graphd/shm"
	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	kind NodeKind
}

func (p *fakeProcessor) Kind() NodeKind                      { return p.kind }
func (p *fakeProcessor) Ports() []PortSpec                   { return nil }
func (p *fakeProcessor) ProcessCycle(cc *CycleContext) error { return nil }
func (p *fakeProcessor) SetIO(port PortID, dir PortDirection, slot *shm.PortIOSlot) {}

func TestRegistryLookupAfterBuild(t *testing.T) {
	r := NewRegistry()
	r.Register("passthrough", func() Processor { return &fakeProcessor{kind: KindFilter} })
	r.Register("sink", func() Processor { return &fakeProcessor{kind: KindConsumer} })
	require.NoError(t, r.Build())

	p, err := r.Lookup("sink")
	require.NoError(t, err)
	require.Equal(t, KindConsumer, p.Kind())

	p, err = r.Lookup("passthrough")
	require.NoError(t, err)
	require.Equal(t, KindFilter, p.Kind())
}

func TestRegistryLookupUnknownNameErrors(t *testing.T) {
	r := NewRegistry()
	r.Register("passthrough", func() Processor { return &fakeProcessor{kind: KindFilter} })
	require.NoError(t, r.Build())

	_, err := r.Lookup("does-not-exist")
	require.Error(t, err)
}

func TestRegistryNamesPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register("a", func() Processor { return &fakeProcessor{} })
	r.Register("b", func() Processor { return &fakeProcessor{} })
	r.Register("c", func() Processor { return &fakeProcessor{} })

	require.Equal(t, []string{"a", "b", "c"}, r.Names())
}
