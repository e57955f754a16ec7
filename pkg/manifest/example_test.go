package manifest_test

import (
	"fmt"

	"github.com/matzehuels/depscope/pkg/manifest"
)

func ExampleParse() {
	data := []byte(`{
		"dependencies": {"react": "^18.2.0", "lodash": "^4.17.21"},
		"devDependencies": {"vitest": "^1.0.0"}
	}`)

	m, err := manifest.Parse(data, "packages/web/package.json")
	if err != nil {
		panic(err)
	}
	fmt.Println(m.Name, m.Version)
	for _, d := range m.All() {
		fmt.Println(d.Kind, d.Name, d.Range)
	}
	// Output:
	// web 0.0.0
	// runtime react ^18.2.0
	// runtime lodash ^4.17.21
	// dev vitest ^1.0.0
}
