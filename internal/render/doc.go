// Package render turns a set of URLs into PDF files. One shared browser
// engine serves the whole batch, a counting semaphore bounds how many
// sessions are open at once, and the NameAllocator gives every output file a
// unique, filesystem-safe name.
package render
