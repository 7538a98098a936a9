package preference

// Names of the default programs, in score-vector order.
const (
	AttractionDensity = "attraction_density"
	TransportTime     = "transport_time"
	DiningRate        = "dining_rate"
)

// Program is a named scoring program.
type Program struct {
	Name   string
	Source string
}

// attractionDensity scores attractions per day against four a day.
const attractionDensity = `
attraction_count = 0
for activity in allactivities(plan):
    if activity_type(activity) == 'attraction':
        attraction_count += 1
result = attraction_count / (4 * day_count(plan))
`

// transportTime maps the average inner-city transport time in minutes
// through a linear penalty: 15 minutes scores 1, 120 minutes scores 0.
// A plan without transports takes the -1 branch and clamps to 1.
const transportTime = `
time_cost = 0
transport_count = 0
for activity in allactivities(plan):
    transports = activity_transports(activity)
    if transports != []:
        transport_count += 1
        time_cost += innercity_transport_time(transports)
average_time_cost = time_cost / transport_count if transport_count > 0 else -1
result = (-1 / 105) * average_time_cost + 8 / 7
`

// diningRate scores meals per day against three a day.
const diningRate = `
res_count = 0
for activity in allactivities(plan):
    if activity_type(activity) in ['breakfast', 'lunch', 'dinner']:
        res_count += 1
res_count = res_count / day_count(plan)
result = res_count / 3
`

// DefaultPrograms returns the three programs every fully passing plan is
// scored with, in the order DAV, ATT and DDR are reported.
func DefaultPrograms() []Program {
	return []Program{
		{Name: AttractionDensity, Source: attractionDensity},
		{Name: TransportTime, Source: transportTime},
		{Name: DiningRate, Source: diningRate},
	}
}
