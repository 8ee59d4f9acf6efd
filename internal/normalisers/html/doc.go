// Package html provides a Normaliser for HTML documents such as arXiv
// abstract pages or saved articles. Markup is parsed with goquery; scripts,
// styles and navigation chrome are dropped and block elements become lines.
package html
