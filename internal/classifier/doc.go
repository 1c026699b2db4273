// Package classifier talks to the language model that reads pages for
// crosslink.
//
// Two questions are asked. For a single page: what is its title and which
// phrases in it could carry a link. For a pair of pages: which phrases of
// the source page could link to the target page, and how relevant each
// link would be on a 0 to 100 scale.
//
// The Classifier interface is what the rest of crosslink depends on. OpenAI
// implements it against any OpenAI compatible chat completions endpoint.
package classifier
