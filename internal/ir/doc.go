// Package ir provides the value model shared by the query translator, the
// SQL compiler and the result store.
//
// ir imports nothing internal; every other package may import it.
//
// Key design constraints:
//   - Values form a sealed set (Null, String, Int, Float, Bool, Array, Object)
//   - JSON integers stay Int, never float64, so comparisons stay exact
//   - Result rows are sectioned by table (Row) before merging
//   - Fingerprints use canonical JSON with domain-separated SHA-256
package ir
