// Package callgraphtest is a small fixture exercising one direct and one indirect call, used by
// callgraph_test.go via analysistest.
package callgraphtest

type handlers struct {
	onEvent func()
}

func impl() {}

func dispatch(h *handlers) {
	h.onEvent()
}

func direct() {
	impl()
}

func main() {
	h := &handlers{onEvent: impl}
	dispatch(h)
	direct()
}
