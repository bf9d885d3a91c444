// Package feather implements a small embedded vector database: fixed
// dimension float32 embeddings keyed by uint64 id, structured metadata,
// modality partitions, conjunctive predicate filtering, exact
// brute-force nearest neighbor search, and a typed directed link graph,
// persisted atomically to a single checksummed file.
//
// Open a database, add vectors, search:
//
//	db, err := feather.Open("memories.db", feather.WithDimension(384))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	_ = db.Add(1, embedding)
//	results, _ := db.Search(query, 5, feather.DefaultModality)
//	_ = db.Save()
//
// Search results are ordered by ascending distance with ascending id
// breaking ties, and padded with zero results to exactly k entries.
package feather
