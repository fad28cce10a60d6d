// Command trallocctl replays allocation workloads and inspects heap snapshots.
package main

func main() {
	execute()
}
