// Command clipforge is the CLI front end for the clipforge daemon. It
// talks to the daemon's HTTP API to manage projects and exports.
package main
