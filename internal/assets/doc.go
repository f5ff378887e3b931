// Package assets downloads tutorial datasets into the local data directory.
//
// Assets are fetched once from a public bucket and cached on disk. Archives
// (".tar.gz") are unpacked into a directory named after the asset without
// its extension; a subasset selects a path inside that directory.
package assets
