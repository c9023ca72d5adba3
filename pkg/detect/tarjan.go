package detect

import "errors"

var errStrategyUnavailable = errors.New("strongly connected component computation unavailable")

// tarjanSCC computes the strongly connected components of a directed graph.
// Iterative formulation so deep supply networks cannot blow the stack.
func tarjanSCC(adjacency map[string][]string) ([][]string, error) {
	nodes := make(map[string]struct{})
	for from, tos := range adjacency {
		nodes[from] = struct{}{}
		for _, to := range tos {
			nodes[to] = struct{}{}
		}
	}

	index := make(map[string]int, len(nodes))
	lowlink := make(map[string]int, len(nodes))
	onStack := make(map[string]bool, len(nodes))
	var stack []string
	var components [][]string
	counter := 0

	type frame struct {
		node string
		next int
	}

	for start := range nodes {
		if _, visited := index[start]; visited {
			continue
		}

		frames := []frame{{node: start}}
		index[start] = counter
		lowlink[start] = counter
		counter++
		stack = append(stack, start)
		onStack[start] = true

		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			neighbors := adjacency[f.node]

			if f.next < len(neighbors) {
				n := neighbors[f.next]
				f.next++
				if _, visited := index[n]; !visited {
					index[n] = counter
					lowlink[n] = counter
					counter++
					stack = append(stack, n)
					onStack[n] = true
					frames = append(frames, frame{node: n})
				} else if onStack[n] && index[n] < lowlink[f.node] {
					lowlink[f.node] = index[n]
				}
				continue
			}

			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := &frames[len(frames)-1]
				if lowlink[f.node] < lowlink[parent.node] {
					lowlink[parent.node] = lowlink[f.node]
				}
			}
			if lowlink[f.node] == index[f.node] {
				var component []string
				for {
					top := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[top] = false
					component = append(component, top)
					if top == f.node {
						break
					}
				}
				components = append(components, component)
			}
		}
	}

	return components, nil
}
