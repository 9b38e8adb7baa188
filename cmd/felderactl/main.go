// Command felderactl manages the Feldera pipelines queried by the Grafana datasource.
package main

import "feldera-grafana-plugin/pkg/cli"

func main() {
	cli.Execute()
}
