package scoring

// BlockJob scores every pair (i, j) with i in [I0, I1) and j in [J0, J1).
// On a diagonal job (I0 == J0) only pairs with j > i are scored.
type BlockJob struct {
	I0, I1 int
	J0, J1 int
}

func (b BlockJob) Diagonal() bool {
	return b.I0 == b.J0
}

// Pairs is the number of unordered pairs the job evaluates.
func (b BlockJob) Pairs() int64 {
	wi := int64(b.I1 - b.I0)
	if b.Diagonal() {
		return wi * (wi - 1) / 2
	}
	return wi * int64(b.J1-b.J0)
}

// Plan cuts [0, n) into contiguous blocks of at most blockSize indices and
// returns the upper-triangle block pairs, diagonal included.
func Plan(n, blockSize int) []BlockJob {
	if blockSize <= 0 {
		blockSize = n
	}
	var jobs []BlockJob
	for i0 := 0; i0 < n; i0 += blockSize {
		i1 := min(n, i0+blockSize)
		for j0 := i0; j0 < n; j0 += blockSize {
			jobs = append(jobs, BlockJob{I0: i0, I1: i1, J0: j0, J1: min(n, j0+blockSize)})
		}
	}
	return jobs
}

// ExpectedPairs is n·(n−1)/2.
func ExpectedPairs(n int) int64 {
	return int64(n) * int64(n-1) / 2
}
