package ports

// History is the URL history surface navigation writes to.
type History interface {
	Push(url string)
	Replace(url string)
}
