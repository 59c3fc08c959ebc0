package httpd

import (
	"strings"

	"github.com/momentics/hioload-http/wire"
)

// Trigger is a handler mounted at a path in the trie. Cb fires when a
// matching request arrives; Auth, if set, gates access via HTTP basic
// auth under Realm.
type Trigger struct {
	Cb      func(q *Query)
	Auth    func(user, pass string) bool
	Realm   string
	Destroy func()
}

type trieNode struct {
	children map[string]*trieNode
	trigger  *Trigger
}

func newTrieNode() *trieNode {
	return &trieNode{children: make(map[string]*trieNode)}
}

// Trie is a prefix trie over '/'-delimited path segments, one per HTTP
// method, case-sensitive, greedy (deepest-prefix-wins) lookup.
type Trie struct {
	roots [int(wire.CONNECT) + 1]*trieNode
}

// NewTrie returns an empty per-method trie set.
func NewTrie() *Trie {
	t := &Trie{}
	for i := range t.roots {
		t.roots[i] = newTrieNode()
	}
	return t
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// Register installs trig at method/path, creating intermediate nodes as
// needed, and returns any trigger previously installed at that exact
// node for the caller to dispose of.
func (t *Trie) Register(method wire.Method, path string, trig *Trigger) *Trigger {
	node := t.roots[method]
	for _, seg := range splitPath(path) {
		child, ok := node.children[seg]
		if !ok {
			child = newTrieNode()
			node.children[seg] = child
		}
		node = child
	}
	prev := node.trigger
	node.trigger = trig
	return prev
}

// Unregister removes the trigger at method/path and prunes now-empty
// subtrees back toward the root.
func (t *Trie) Unregister(method wire.Method, path string) *Trigger {
	segs := splitPath(path)
	nodes := make([]*trieNode, 0, len(segs)+1)
	node := t.roots[method]
	nodes = append(nodes, node)
	for _, seg := range segs {
		child, ok := node.children[seg]
		if !ok {
			return nil
		}
		nodes = append(nodes, child)
		node = child
	}
	removed := node.trigger
	node.trigger = nil

	for i := len(nodes) - 1; i > 0; i-- {
		n := nodes[i]
		if n.trigger != nil || len(n.children) > 0 {
			break
		}
		delete(nodes[i-1].children, segs[i-1])
	}
	return removed
}

// IsEmpty reports whether no trigger is mounted anywhere for method —
// used to distinguish a 404 (some trigger exists, this path doesn't
// match) from a 501 (nothing is mounted for this method at all).
func (t *Trie) IsEmpty(method wire.Method) bool {
	return !hasAnyTrigger(t.roots[method])
}

func hasAnyTrigger(n *trieNode) bool {
	if n.trigger != nil {
		return true
	}
	for _, c := range n.children {
		if hasAnyTrigger(c) {
			return true
		}
	}
	return false
}

// Resolve performs a greedy, deepest-prefix-wins lookup, returning the
// matched trigger plus the matched prefix and the unmatched tail.
func (t *Trie) Resolve(method wire.Method, path string) (trig *Trigger, prefix, tail string) {
	segs := splitPath(path)
	node := t.roots[method]
	lastMatch := -1
	lastTrigger := node.trigger
	for i, seg := range segs {
		child, ok := node.children[seg]
		if !ok {
			break
		}
		node = child
		if node.trigger != nil {
			lastMatch = i
			lastTrigger = node.trigger
		}
	}
	if lastTrigger == nil {
		return nil, "", path
	}
	prefix = "/" + strings.Join(segs[:lastMatch+1], "/")
	tail = "/" + strings.Join(segs[lastMatch+1:], "/")
	return lastTrigger, prefix, tail
}
