// Package requestset normalizes batch input into an ordered set of named
// request descriptors.
//
// Callers submit one of three shapes:
//
//	requestset.Single("https://example.com/a")           // keyed "0"
//	requestset.Targets("a", "b", "c")                     // keyed "0", "1", "2"
//	requestset.Mapping{
//		{Name: "users", Value: requestset.Target("/users")},
//		{Name: "post", Value: requestset.Pair{Target: "/items", Options: requestset.Options{Method: "POST"}}},
//		{Name: "raw", Value: requestset.Fields{"url": "/raw", "timeout": 5}},
//	}
//
// Build is a pure transform. Every target goes through the configured
// urlresolve.Resolver, and the resulting Set keeps input order.
package requestset
