// Package textutil provides text processing helpers for speech synthesis.
//
// Long utterances are split on sentence and clause punctuation (CJK and
// Latin) and regrouped into chunks no longer than a rune budget, so each
// chunk stays within what a synthesis engine renders reliably in one call.
package textutil
