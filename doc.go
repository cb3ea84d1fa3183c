// Package operon lets a service declare HTTP operations once (path, method,
// parameters, request bodies, responses, headers) and derives two consistent
// artifacts from that single declaration: an OpenAPI 3 document and the
// runtime logic that binds requests into typed values and serializes typed
// results back into HTTP responses.
//
// An API is declared at startup through builders and is immutable once it
// starts serving:
//
//	api := operon.New("Petstore", "1.0")
//	api.MustRegister(
//		operon.NewOperation("GET", "/pets/:id", getPet).
//			Params(operon.PathParam("id", operon.Int64)).
//			Responses(
//				operon.Response(200).Content(operon.JSON[Pet]()),
//				operon.Response(404).Content(operon.PlainText()),
//			),
//	)
//	http.ListenAndServe(":8080", api.Handler())
//
// Because the document and the binder are projections of the same
// declaration, an extraction rule, validator, default, or content-type
// mapping can never be present in one and missing from the other.
package operon
