package sync

// Pair is a local item matched with its remote counterpart
type Pair[L, R any] struct {
	Local  L
	Remote R
}

// Diff partitions a local and a remote collection by remote id
type Diff[L, R any] struct {
	OnlyLocal  []L
	OnlyRemote []R
	Paired     []Pair[L, R]
}

// Split matches local items to remote items by remote id. It never touches
// storage and keeps the input order within each output set. When the
// remote side repeats an id, the last occurrence wins and the earlier ones
// are dropped.
func Split[L, R any](local []L, remote []R, localKey func(L) int64, remoteKey func(R) int64) Diff[L, R] {
	byID := make(map[int64]R, len(remote))
	for _, r := range remote {
		byID[remoteKey(r)] = r
	}

	var d Diff[L, R]
	known := make(map[int64]bool, len(local))
	for _, l := range local {
		id := localKey(l)
		known[id] = true
		if r, ok := byID[id]; ok {
			d.Paired = append(d.Paired, Pair[L, R]{Local: l, Remote: r})
		} else {
			d.OnlyLocal = append(d.OnlyLocal, l)
		}
	}

	emitted := make(map[int64]bool, len(remote))
	for _, r := range remote {
		id := remoteKey(r)
		if known[id] || emitted[id] {
			continue
		}
		emitted[id] = true
		d.OnlyRemote = append(d.OnlyRemote, byID[id])
	}

	return d
}
