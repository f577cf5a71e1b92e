// Command sheetlens exports Excel workbooks as annotated grids and archives.
package main

import "github.com/klytics/sheetlens/cmd"

func main() {
	cmd.Execute()
}
