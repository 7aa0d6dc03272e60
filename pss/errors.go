package pss

import "errors"

var (
	//ErrServerUnderMaintenance is returned while the game servers are down for maintenance. Retrying is pointless.
	ErrServerUnderMaintenance = errors.New("pixel starships servers are under maintenance")
	//ErrAPI is returned for any other failure reported by the game api. These are usually transient.
	ErrAPI = errors.New("pixel starships api error")
)
