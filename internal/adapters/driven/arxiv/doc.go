// Package arxiv implements driven.PaperIndex against the arXiv Atom API.
//
// Searches go to export.arxiv.org/api/query and are parsed from Atom.
// Every request, including PDF downloads, passes through a token-bucket
// rate limiter (one request every three seconds by default, as arXiv asks
// of API clients) and backs off when the service answers 429 or 503.
package arxiv
