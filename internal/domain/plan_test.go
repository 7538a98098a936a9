package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    Clock
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "8:05", want: 8*60 + 5},
		{in: "23:59", want: 23*60 + 59},
		{in: "24:00", want: EndOfDay},
		{in: "24:01", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "12:5", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "-1:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrMalformedInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClockString(t *testing.T) {
	assert.Equal(t, "08:05", MustClock("8:05").String())
	assert.Equal(t, "24:00", EndOfDay.String())
}

func TestDecodePlan(t *testing.T) {
	t.Run("valid plan", func(t *testing.T) {
		data := []byte(`{
			"people_number": 2,
			"start_city": "上海",
			"target_city": "北京",
			"itinerary": [{
				"day": 1,
				"activities": [
					{"type": "train", "start": "上海虹桥站", "end": "北京南站", "TrainID": "G2",
					 "start_time": "07:00", "end_time": "11:30", "price": 550, "cost": 1100, "tickets": 2},
					{"type": "attraction", "position": "故宫博物院", "start_time": "13:00", "end_time": "16:00",
					 "price": 60, "cost": 120, "tickets": 2,
					 "transports": [{"start": "北京南站", "end": "故宫博物院", "mode": "metro",
					   "start_time": "11:40", "end_time": "12:20", "price": 4, "cost": 8, "distance": 9.5, "tickets": 2}]}
				]
			}]
		}`)

		p, err := DecodePlan(data)
		require.NoError(t, err)
		assert.Equal(t, 1, p.DayCount())
		acts := p.AllActivities()
		require.Len(t, acts, 2)
		assert.Equal(t, "G2", acts[0].TransportID())
		assert.Equal(t, "北京南站", acts[0].Arrival())
		assert.Equal(t, "故宫博物院", acts[1].Departure())
		assert.Equal(t, 40, acts[1].Transports[0].Duration())
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := DecodePlan([]byte("  "))
		assert.True(t, errors.Is(err, ErrMalformedInput))
	})

	t.Run("bad clock", func(t *testing.T) {
		_, err := DecodePlan([]byte(`{"itinerary":[{"day":1,"activities":[{"type":"lunch","start_time":"25:00","end_time":"12:00"}]}]}`))
		assert.True(t, errors.Is(err, ErrMalformedInput))
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := DecodePlan([]byte(`{"itinerary": "soon"}`))
		assert.True(t, errors.Is(err, ErrMalformedInput))
	})
}

func TestActivityType(t *testing.T) {
	assert.True(t, ActivityLunch.IsMeal())
	assert.False(t, ActivityAttraction.IsMeal())
	assert.True(t, ActivityAirplane.IsIntercity())
	assert.False(t, ActivityAccommodation.IsIntercity())
}
