// Package plan derives dependency recipes from a verified manifest and lock.
//
// A recipe is a canonical, ordered description of the locked dependency
// graph. Its encoding is deterministic: two manifest/lock pairs with the
// same content always produce byte-identical recipes, and therefore the
// same content digest. The digest keys the dependency layer cache, so this
// determinism is what makes dependency layers reusable across builds.
//
// Recipes deliberately carry no information about the application source
// tree. Editing source files never changes a recipe; only manifest or lock
// edits do.
package plan
