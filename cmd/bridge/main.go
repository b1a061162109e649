package main

import "webdriver-bridge/internal/bootstrap"

func main() {
	bootstrap.NewApp().Run()
}
