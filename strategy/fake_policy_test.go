package strategy

// A debug policy that records every callback it receives.
type RecordingPolicy struct {
	Allocates   []RecordedAllocate
	Deallocates []RecordedDeallocate
	Resets      int
}

type RecordedAllocate struct {
	Size      int
	Alignment uint
	Offset    int
}

type RecordedDeallocate struct {
	Offset int
	Size   int
}

func (p *RecordingPolicy) OnAllocate(size int, alignment uint, offset int) {
	p.Allocates = append(p.Allocates, RecordedAllocate{Size: size, Alignment: alignment, Offset: offset})
}

func (p *RecordingPolicy) OnDeallocate(offset, size int) {
	p.Deallocates = append(p.Deallocates, RecordedDeallocate{Offset: offset, Size: size})
}

func (p *RecordingPolicy) OnReset() {
	p.Resets++
}
