package alloc

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const auditIndent = "    "

// Audit writes a human-readable dump of the heap: globals, every physical
// chunk from the first chunk to the guard, then the free tree. It never
// modifies the heap.
func (a *Allocator) Audit(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "audit begin")
	fmt.Fprintf(bw, "root: %s\n", linkString(a.tree.root))
	fmt.Fprintf(bw, "first_chunk: %s\n", linkString(a.track.first))
	fmt.Fprintf(bw, "guard: %#x\n", a.track.guard)
	fmt.Fprintf(bw, "header_pad: %d\n", headerPad)
	fmt.Fprintf(bw, "footer_pad: %d\n", footerPad)
	fmt.Fprintf(bw, "node_pad: %d\n", nodePad)

	if a.tree.root != noChunk {
		if err := a.auditChunks(bw); err != nil {
			fmt.Fprintf(bw, "chain error: %v\n", err)
		}
		if err := a.auditTree(bw); err != nil {
			fmt.Fprintf(bw, "tree error: %v\n", err)
		}
	}
	fmt.Fprintln(bw, "audit end")
	return bw.Flush()
}

func (a *Allocator) auditChunks(w io.Writer) error {
	m := a.img
	return a.Walk(func(ci ChunkInfo) bool {
		c := chunk(ci.Offset)
		fmt.Fprintf(w, "%schunk: %#x\n", auditIndent, ci.Offset)
		fmt.Fprintf(w, "%schunk.size: %d\n", auditIndent, ci.Size)
		fmt.Fprintf(w, "%schunk.in_use: %d\n", auditIndent, b2i(ci.InUse))
		if ci.InUse {
			for i := 0; i < ci.Size/wordSize; i++ {
				fmt.Fprintf(w, "%s%sdata: %#016x\n", auditIndent, auditIndent, m.word(c, i))
			}
		} else {
			fmt.Fprintf(w, "%snode.parent: %s\n", auditIndent, linkString(m.parent(c)))
			fmt.Fprintf(w, "%snode.left: %s\n", auditIndent, linkString(m.left(c)))
			fmt.Fprintf(w, "%snode.right: %s\n", auditIndent, linkString(m.right(c)))
		}
		fmt.Fprintf(w, "%sfooter.size: %d\n", auditIndent, ci.FooterSize)
		return true
	})
}

// auditTree renders the tree as nested parentheses without recursion.
func (a *Allocator) auditTree(w io.Writer) error {
	type frame struct {
		c     chunk
		depth int
		step  int
	}
	m := a.img
	limit := a.maxNodes()
	stack := []frame{{c: a.tree.root}}
	for visited := 0; len(stack) > 0; {
		top := len(stack) - 1
		f := stack[top]
		pad := strings.Repeat(auditIndent, f.depth)
		if f.c == noChunk {
			fmt.Fprintf(w, "%snil\n", pad)
			stack = stack[:top]
			continue
		}
		switch f.step {
		case 0:
			visited++
			if visited > limit || !a.nodeInBounds(f.c) {
				return &CheckError{Kind: "order", Offset: int(f.c), Message: "free tree unprintable"}
			}
			fmt.Fprintf(w, "%s(chunk: %#x,\n", pad, int(f.c))
			fmt.Fprintf(w, "%schunk.size: %d,\n", pad, m.size(f.c))
			fmt.Fprintf(w, "%schunk.in_use: %d,\n", pad, b2i(m.inUse(f.c)))
			fmt.Fprintf(w, "%snode.parent: %s,\n", pad, linkString(m.parent(f.c)))
			fmt.Fprintf(w, "%snode.left:\n", pad)
			stack[top].step = 1
			stack = append(stack, frame{c: m.left(f.c), depth: f.depth + 1})
		case 1:
			fmt.Fprintf(w, "%snode.right:\n", pad)
			stack[top].step = 2
			stack = append(stack, frame{c: m.right(f.c), depth: f.depth + 1})
		default:
			fmt.Fprintf(w, "%s)\n", pad)
			stack = stack[:top]
		}
	}
	return nil
}

func linkString(c chunk) string {
	if c == noChunk {
		return "nil"
	}
	return fmt.Sprintf("%#x", int(c))
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
