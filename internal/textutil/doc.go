// Package textutil derives filesystem- and URL-safe tokens from titles and
// file names. Source ids used in object keys come from here.
package textutil
