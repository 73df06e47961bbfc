package service

// waiting reports how many callers hold or wait for the key
func (d *dayLocks) waiting(employeeID, date string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if l, ok := d.locks[employeeID+"|"+date]; ok {
		return l.refs
	}
	return 0
}

func (d *dayLocks) size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.locks)
}
