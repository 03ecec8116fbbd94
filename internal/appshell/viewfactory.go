// Package appshell resolves UI layout resources for the application shell.
package appshell

import "net/url"

const titleBarResource = "qrc:/qml/GimelStudio/AppShell/GSTitleBar.qml"

var titleBarURL = mustParse(titleBarResource)

func mustParse(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// ViewFactory supplies the QML resources the shell loads at startup.
type ViewFactory struct{}

// TitleBarFilename returns the title bar layout resource.
func (ViewFactory) TitleBarFilename() *url.URL {
	u := *titleBarURL
	return &u
}
