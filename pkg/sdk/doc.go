// Package vecdemo provides a Go client that runs one query through several
// retrieval approaches (keyword, vector, filtered vector, hybrid and hybrid with
// semantic reranking) against Azure AI Search, and returns one result card per
// approach.
//
// The query is vectorized once, by Azure OpenAI for text indexes or by Azure AI
// Vision for image indexes, and the searches run in parallel. A failed approach
// becomes an entry in Result.Errors and never hides the others.
//
//	client, _ := vecdemo.New(
//	    vecdemo.WithTextEmbedding("https://my-aoai.openai.azure.com", "embedding-ada", aoaiKey),
//	    vecdemo.WithSearchService("https://my-search.search.windows.net", searchKey),
//	    vecdemo.WithTextIndex("docs-index"),
//	)
//	res, _ := client.SearchText(ctx, "scalable storage solution", vecdemo.SearchOptions{
//	    Approaches: []vecdemo.Approach{vecdemo.ApproachVector, vecdemo.ApproachHybridSemantic},
//	    Captions:   true,
//	})
//	for _, card := range res.Cards {
//	    fmt.Println(card.Label, len(card.Documents))
//	}
//
// # Latest-wins sessions
//
// Interactive callers that fire a new query on every keystroke can bind
// invocations to a session; starting a new one cancels the previous one with
// ErrSuperseded:
//
//	s := client.Session("tab-1")
//	res, err := s.SearchText(ctx, query, vecdemo.SearchOptions{})
//	if errors.Is(err, vecdemo.ErrSuperseded) {
//	    return // a newer query owns the screen
//	}
package vecdemo
