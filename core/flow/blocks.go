package flow

import (
	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/exp/slices"
)

// Block is a maximal run of entries entered only at its first entry and
// left only after its last one.
type Block struct {
	blockNum int
	first    int
	last     int
	handler  bool

	parents  []*Block
	children []*Block
	catchers []*Block

	parentSet  mapset.Set[int]
	childSet   mapset.Set[int]
	catcherSet mapset.Set[int]
}

func newBlock(num, first int) *Block {
	return &Block{
		blockNum:   num,
		first:      first,
		last:       first,
		parentSet:  mapset.NewThreadUnsafeSet[int](),
		childSet:   mapset.NewThreadUnsafeSet[int](),
		catcherSet: mapset.NewThreadUnsafeSet[int](),
	}
}

func (b *Block) Num() int { return b.blockNum }

// First and Last are the entry indexes the block spans, inclusive.
func (b *Block) First() int { return b.first }
func (b *Block) Last() int  { return b.last }

func (b *Block) Size() int { return b.last - b.first + 1 }

// IsHandler reports whether the block starts an exception handler.
func (b *Block) IsHandler() bool { return b.handler }

func (b *Block) Parents() []*Block { return b.parents }

func (b *Block) Children() []*Block { return b.children }

// Catchers are the handler blocks covering any entry of the block.
func (b *Block) Catchers() []*Block { return b.catchers }

func (b *Block) addChild(child *Block) {
	if b.childSet.Add(child.blockNum) {
		b.children = append(b.children, child)
	}
	if child.parentSet.Add(b.blockNum) {
		child.parents = append(child.parents, b)
	}
}

func (b *Block) addCatcher(handler *Block) {
	if b.catcherSet.Add(handler.blockNum) {
		b.catchers = append(b.catchers, handler)
	}
}

// Blocks partitions the graph into basic blocks, in entry order. Leaders are
// entry 0, branch targets, handler entries and whatever follows a branch or
// a terminator.
func (g *Graph) Blocks() []*Block {
	n := g.Len()
	if n == 0 {
		return nil
	}
	leaders := mapset.NewThreadUnsafeSet[int](0)
	for i := 0; i < n; i++ {
		kind := g.kinds[i]
		if kind.Branches() {
			for _, s := range g.succs[i] {
				leaders.Add(s)
			}
		}
		if (kind.Branches() || kind.Terminates()) && i+1 < n {
			leaders.Add(i + 1)
		}
		for _, h := range g.handlers[i] {
			leaders.Add(h)
		}
	}
	starts := leaders.ToSlice()
	slices.Sort(starts)

	blocks := make([]*Block, len(starts))
	byEntry := make([]*Block, n)
	for num, first := range starts {
		b := newBlock(num, first)
		last := n - 1
		if num+1 < len(starts) {
			last = starts[num+1] - 1
		}
		b.last = last
		for i := first; i <= last; i++ {
			byEntry[i] = b
		}
		blocks[num] = b
	}
	for i := 0; i < n; i++ {
		for _, h := range g.handlers[i] {
			byEntry[h].handler = true
			byEntry[i].addCatcher(byEntry[h])
		}
	}
	for _, b := range blocks {
		for _, s := range g.succs[b.last] {
			b.addChild(byEntry[s])
		}
	}
	return blocks
}
