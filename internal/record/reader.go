package record

import (
	"time"
)

type Run struct {
	ID         string
	Started    time.Time
	Integrator string
	Dt         float64
	Stiffness  float64
	Damping    float64
	StartAngle float64
	Steps      int
	Clamps     int
	Settled    bool
	SettledAt  float64
}

type Sample struct {
	Step   int
	Time   float64
	Theta  float64
	Omega  float64
	Torque float64
}

func (r *Recorder) Runs() ([]Run, error) {
	rows, err := r.db.Query(`SELECT run_id, started, integrator, dt, stiffness, damping, start_angle, steps, clamps, settled, settled_at
		FROM runs ORDER BY started`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Started, &run.Integrator, &run.Dt, &run.Stiffness, &run.Damping,
			&run.StartAngle, &run.Steps, &run.Clamps, &run.Settled, &run.SettledAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *Recorder) Samples(runID string) ([]Sample, error) {
	rows, err := r.db.Query(`SELECT step, time, theta, omega, torque FROM steps WHERE run_id = ? ORDER BY step`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.Step, &s.Time, &s.Theta, &s.Omega, &s.Torque); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}
