package main

import "naturezabrindes/quote_backend/internal/app"

func main() {
	app.Run()
}
