package artifact

import "fmt"

// NumFeatures is the length of the feature vector: soil code, rainfall,
// temperature, in that order.
const NumFeatures = 3

// Classifier maps a feature vector to a class code. Implementations must be
// deterministic and safe for concurrent use.
type Classifier interface {
	Predict(features [NumFeatures]float64) int
}

// Node is one entry of a flattened decision tree. Left == -1 marks a leaf.
// Internal nodes send features[Feature] <= Threshold to Left.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Class     int     `json:"class"`
}

// Tree is a flattened decision tree rooted at node 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t Tree) predict(features [NumFeatures]float64) int {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left < 0 {
			return n.Class
		}
		if features[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// validate rejects trees whose walk could leave the slice or loop.
func (t Tree) validate() error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	for i, n := range t.Nodes {
		if n.Left < 0 {
			if n.Class < 0 {
				return fmt.Errorf("leaf %d has negative class %d", i, n.Class)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= NumFeatures {
			return fmt.Errorf("node %d splits on feature %d", i, n.Feature)
		}
		for _, child := range []int{n.Left, n.Right} {
			if child <= i || child >= len(t.Nodes) {
				return fmt.Errorf("node %d has child %d out of range", i, child)
			}
		}
	}
	return nil
}

// Forest is a majority-vote ensemble of decision trees. Ties go to the
// lowest class code.
type Forest struct {
	Trees []Tree
}

func (f *Forest) Predict(features [NumFeatures]float64) int {
	votes := make(map[int]int, len(f.Trees))
	for _, t := range f.Trees {
		votes[t.predict(features)]++
	}
	best, bestVotes := -1, 0
	for class, n := range votes {
		if n > bestVotes || (n == bestVotes && class < best) {
			best, bestVotes = class, n
		}
	}
	return best
}

func (f *Forest) validate() error {
	if len(f.Trees) == 0 {
		return fmt.Errorf("forest has no trees")
	}
	for i, t := range f.Trees {
		if err := t.validate(); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}
