// Package tagging attaches positional and lexical labels.
//
// Section tagging splits a document's ordered chunks into three contiguous
// thirds by index alone. Ticker tagging pulls upper-case symbols out of news
// articles with a single regular expression.
package tagging
