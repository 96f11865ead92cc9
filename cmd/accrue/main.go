// Package main is the entry point for accrue.
//
//	@title			accrue API
//	@version		1.0
//	@description	Tracks items that accrue a balance over time from dated rates, and the uses that draw it down.
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@BasePath		/
package main

import (
	_ "time/tzdata" // timezones resolve without a system zoneinfo
)

func main() {
	Execute()
}
