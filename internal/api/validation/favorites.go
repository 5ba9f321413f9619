package validation

import "strings"

// maxTickerLength bounds ticker symbols; exchange symbols are short.
const maxTickerLength = 10

// Ticker validates a ticker symbol and returns its normalized form, or an
// error message suitable for a 400 response.
func Ticker(raw string) (string, string) {
	ticker := strings.ToUpper(strings.TrimSpace(raw))
	if ticker == "" {
		return "", "Ticker required"
	}
	if len(ticker) > maxTickerLength {
		return "", "Ticker must be at most 10 characters"
	}
	return ticker, ""
}

// SearchQuery validates a search query string, returning an error message
// when it is missing or blank.
func SearchQuery(raw string) (string, string) {
	query := strings.TrimSpace(raw)
	if query == "" {
		return "", "Please enter a search term"
	}
	return query, ""
}
