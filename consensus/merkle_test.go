package consensus

import "testing"

func TestMerkleRootSingle(t *testing.T) {
	h := Hash{1}
	root, mutated := MerkleRootChecked([]Hash{h})
	if root != h {
		t.Fatalf("single-leaf root must equal the leaf itself")
	}
	if mutated {
		t.Fatalf("single leaf cannot be malleated")
	}
}

func TestMerkleRootOddDuplicationIsNotMalleation(t *testing.T) {
	a, b, c := Hash{1}, Hash{2}, Hash{3}
	_, mutated := MerkleRootChecked([]Hash{a, b, c})
	if mutated {
		t.Fatalf("legitimate odd-leaf duplication must not be flagged as malleation")
	}
}

func TestMerkleRootDuplicateLeavesIsMalleation(t *testing.T) {
	a, b := Hash{1}, Hash{2}
	_, mutated := MerkleRootChecked([]Hash{a, a, b, b})
	if !mutated {
		t.Fatalf("duplicate adjacent leaves must be flagged as malleation")
	}
}

func TestMerkleRootDeterministic(t *testing.T) {
	txids := []Hash{{1}, {2}, {3}, {4}, {5}}
	r1 := MerkleRoot(txids)
	r2 := MerkleRoot(append([]Hash(nil), txids...))
	if r1 != r2 {
		t.Fatalf("merkle root must be deterministic")
	}
}
