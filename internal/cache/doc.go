// Package cache builds and reuses dependency layers.
//
// A dependency layer is a directory holding the fetched artifacts of every
// package in a recipe, keyed by the recipe's content digest. The store is
// a pure function of the digest: building the same recipe twice yields an
// equivalent layer, and a layer is invalidated only when the recipe digest
// changes. Application source edits never touch the store.
//
// Layers are built in a scratch directory and committed with a single
// rename, so a crashed or cancelled build never leaves a committed layer
// behind. Fetch failures distinguish transient transport problems from
// genuinely unavailable packages; neither produces a partial layer, and
// no retries happen at this level. Retry policy belongs to the caller.
package cache
