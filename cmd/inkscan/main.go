// Command inkscan scans page images and prints the recognized text.
//
// Usage:
//
//	inkscan scan page1.png page2.png
//	inkscan scan --dir ./scans --format markdown
//	inkscan scan --interactive
package main

func main() {
	Execute()
}
