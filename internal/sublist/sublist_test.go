package sublist

import (
	"errors"
	"testing"
)

type mockSub struct {
	err    bool
	closed bool
	got    int
}

func (m *mockSub) Push(sender string, d []byte) error {
	if m.err {
		return errors.New("subscriber closed")
	}
	m.got++
	return nil
}

func (m *mockSub) Closed() bool {
	return m.closed
}

func (m *mockSub) Name() string {
	return "mocksub"
}

func filled(n int) *Sublist {
	subs := NewSublist()
	for i := 0; i < n; i++ {
		subs.Subscribe(&mockSub{})
	}
	return subs
}

func TestNoPrune(t *testing.T) {
	subs := filled(10)
	subs.Prune()
	if subs.Len() != 10 {
		t.Error()
	}
}

func TestPrune1(t *testing.T) {
	subs := filled(10)
	subs.list[8].sub.(*mockSub).closed = true
	subs.Prune()
	if subs.Len() != 9 {
		t.Error()
	}
}

func TestPrune2(t *testing.T) {
	subs := filled(10)
	subs.list[4].sub.(*mockSub).closed = true
	subs.list[8].sub.(*mockSub).closed = true
	subs.list[9].sub.(*mockSub).closed = true
	subs.Prune()
	if subs.Len() != 7 {
		t.Error()
	}
}

func TestSendAll(t *testing.T) {
	subs := filled(5)
	subs.Send("u1", []byte("payload"))
	for i := range subs.list {
		if subs.list[i].sub.(*mockSub).got != 1 {
			t.Errorf("subscriber %d did not receive broadcast", i)
		}
	}
}

func TestSendRecordsError(t *testing.T) {
	subs := filled(3)
	subs.list[1].sub.(*mockSub).err = true
	subs.Send("u1", []byte("payload"))
	subs.Prune()
	if subs.Len() != 2 {
		t.Errorf("expected erroring subscriber pruned, len=%d", subs.Len())
	}
}

func BenchmarkSend(b *testing.B) {
	p := make([]byte, 100)
	subs := filled(100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		subs.Send("mocksender", p)
	}
}
