package bptree

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"strings"
)

const dotPreview = 12

// WriteDOT renders the tree as a Graphviz digraph, leaves linked left to right.
func (t *Tree) WriteDOT(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "digraph BPTree {")
	fmt.Fprintln(bw, "  graph [ranksep=0.8, nodesep=0.5, bgcolor=\"#ffffff\", rankdir=TB];")
	fmt.Fprintln(bw, "  node [shape=none, fontname=\"Helvetica\", fontsize=10];")
	fmt.Fprintln(bw, "  edge [arrowsize=0.8, color=\"#444444\"];")

	if t.root != InvalidNode {
		t.dotNode(bw, t.root)

		leaves := t.Leaves()
		if len(leaves) > 1 {
			fmt.Fprintln(bw, "  { rank=same;")
			for _, id := range leaves {
				fmt.Fprintf(bw, "    node%d;\n", id)
			}
			fmt.Fprintln(bw, "  }")
			for _, id := range leaves {
				if next := t.nodes[id].next; next != InvalidNode {
					fmt.Fprintf(bw, "  node%d:next -> node%d [style=dashed, color=\"#03A9F4\", constraint=false, tailclip=false];\n", id, next)
				}
			}
		}
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

func (t *Tree) dotNode(w io.Writer, id NodeID) {
	n := &t.nodes[id]
	fill := 100 * float64(len(n.keys)) / float64(t.capacity-1)

	if n.leaf {
		var label strings.Builder
		fmt.Fprintf(&label, `<<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0" CELLPADDING="4">
				<TR><TD COLSPAN="2" BGCOLOR="#D5E8D4"><B>NODE %d (LEAF)</B><BR/><FONT POINT-SIZE="8">Fill: %.1f%%</FONT></TD></TR>
				<TR><TD PORT="keys" BGCOLOR="#F5F5F5" ALIGN="LEFT">`, id, fill)
		for i, k := range n.keys {
			fmt.Fprintf(&label, "<B>%s</B> <FONT COLOR='#666666'>@%d</FONT><BR/>", dotKey(k), n.slots[i].offset)
		}
		nextLabel := "NULL"
		if n.next != InvalidNode {
			nextLabel = fmt.Sprintf("%d", n.next)
		}
		fmt.Fprintf(&label, `</TD><TD PORT="next" BGCOLOR="#E1F5FE" VALIGN="MIDDLE">Next: %s</TD></TR></TABLE>>`, nextLabel)
		fmt.Fprintf(w, "  node%d [label=%s];\n", id, label.String())
		return
	}

	var label strings.Builder
	fmt.Fprintf(&label, `<<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0" CELLPADDING="4">
				<TR><TD COLSPAN="%d" BGCOLOR="#DAE8FC"><B>NODE %d (INTERNAL)</B><BR/><FONT POINT-SIZE="8">Fill: %.1f%%</FONT></TD></TR><TR>`, len(n.keys)*2+1, id, fill)
	for i, k := range n.keys {
		fmt.Fprintf(&label, `<TD PORT="f%d" BGCOLOR="#E1F5FE">P:%d</TD><TD BGCOLOR="#FFFFFF"><B>%s</B></TD>`, i, n.children[i], dotKey(k))
	}
	last := len(n.keys)
	fmt.Fprintf(&label, `<TD PORT="f%d" BGCOLOR="#E1F5FE">P:%d</TD></TR></TABLE>>`, last, n.children[last])
	fmt.Fprintf(w, "  node%d [label=%s];\n", id, label.String())

	for i, c := range n.children {
		t.dotNode(w, c)
		fmt.Fprintf(w, "  node%d:f%d -> node%d;\n", id, i, c)
	}
}

func dotKey(k string) string {
	k = strings.TrimRight(k, " ")
	if len(k) > dotPreview {
		k = k[:dotPreview] + ".."
	}
	return html.EscapeString(k)
}
