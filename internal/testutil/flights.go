package testutil

import "github.com/roach88/odataql/internal/model"

// FlightModel builds the flight/airport/passenger model used across tests.
//
//	flights.airports      collection, constraints (origin, code) and (destination, code)
//	flights.passengers    collection, constraint (id, flight_id)
//	flights.originAirport single-valued, constraint (origin, code)
//	flights.connections   collection of flights, constraint (destination, origin)
//	passengers.bags       collection, constraint (id, passenger_id)
//
// The passengers set stores the name property in the full_name column.
func FlightModel() *model.Model {
	airport := model.NewEntityType("airport").SetKey("id")
	airport.
		AddProperty(nonNull("id", model.Int32)).
		AddProperty(model.NewProperty("name", model.String)).
		AddProperty(model.NewProperty("code", model.String)).
		AddProperty(model.NewProperty("construction_date", model.Date)).
		AddProperty(model.NewProperty("open_time", model.TimeOfDay)).
		AddProperty(model.NewProperty("sam_datetime", model.DateTimeOffset)).
		AddProperty(model.NewProperty("review_score", model.Decimal)).
		AddProperty(model.NewProperty("is_big", model.Boolean))

	bag := model.NewEntityType("bag").SetKey("id")
	bag.
		AddProperty(nonNull("id", model.Int32)).
		AddProperty(model.NewProperty("passenger_id", model.Int32)).
		AddProperty(model.NewProperty("weight", model.Int32))

	passenger := model.NewEntityType("passenger").SetKey("id")
	passenger.
		AddProperty(nonNull("id", model.Int32)).
		AddProperty(model.NewProperty("flight_id", model.Int32)).
		AddProperty(model.NewProperty("name", model.String)).
		AddProperty(model.NewProperty("age", model.Int32))
	bags := model.NewNavigationProperty("bags", bag, true).
		AddConstraint(passenger.Property("id"), bag.Property("passenger_id"))
	passenger.AddNavigationProperty(bags)

	flight := model.NewEntityType("flight").SetKey("id")
	flight.
		AddProperty(nonNull("id", model.Int32)).
		AddProperty(model.NewProperty("code", model.String)).
		AddProperty(model.NewProperty("origin", model.String)).
		AddProperty(model.NewProperty("destination", model.String)).
		AddProperty(model.NewProperty("gate", model.Int32))

	airports := model.NewNavigationProperty("airports", airport, true).
		AddConstraint(flight.Property("origin"), airport.Property("code")).
		AddConstraint(flight.Property("destination"), airport.Property("code"))
	passengers := model.NewNavigationProperty("passengers", passenger, true).
		AddConstraint(flight.Property("id"), passenger.Property("flight_id"))
	originAirport := model.NewNavigationProperty("originAirport", airport, false).
		AddConstraint(flight.Property("origin"), airport.Property("code"))
	connections := model.NewNavigationProperty("connections", flight, true).
		AddConstraint(flight.Property("destination"), flight.Property("origin"))
	flight.
		AddNavigationProperty(airports).
		AddNavigationProperty(passengers).
		AddNavigationProperty(originAirport).
		AddNavigationProperty(connections)

	airportSet := model.NewEntitySet("airports", airport)
	bagSet := model.NewEntitySet("bags", bag)
	passengerSet := model.NewEntitySet("passengers", passenger).
		MapColumn("name", "full_name").
		AddBinding(bags, bagSet)
	flightSet := model.NewEntitySet("flights", flight).
		AddBinding(airports, airportSet).
		AddBinding(passengers, passengerSet).
		AddBinding(originAirport, airportSet)
	flightSet.AddBinding(connections, flightSet)

	m := model.New()
	mustAdd(m.AddType(airport))
	mustAdd(m.AddType(bag))
	mustAdd(m.AddType(passenger))
	mustAdd(m.AddType(flight))
	mustAdd(m.AddSet(airportSet))
	mustAdd(m.AddSet(bagSet))
	mustAdd(m.AddSet(passengerSet))
	mustAdd(m.AddSet(flightSet))
	return m
}

// InconsistentFlightModel extends FlightModel with two navigation properties
// that cannot be compiled:
//
//	flights.crew    collection declared on the type but not bound on the set
//	flights.ghosts  collection bound on the set but without constraints
func InconsistentFlightModel() *model.Model {
	m := FlightModel()
	flight := m.Type("flight")
	passenger := m.Type("passenger")

	crew := model.NewNavigationProperty("crew", passenger, true).
		AddConstraint(flight.Property("id"), passenger.Property("flight_id"))
	ghosts := model.NewNavigationProperty("ghosts", passenger, true)
	flight.AddNavigationProperty(crew).AddNavigationProperty(ghosts)
	m.Set("flights").AddBinding(ghosts, m.Set("passengers"))
	return m
}

func nonNull(name string, typ model.PrimitiveType) *model.Property {
	p := model.NewProperty(name, typ)
	p.Nullable = false
	return p
}

func mustAdd(err error) {
	if err != nil {
		panic(err)
	}
}
