// Package model describes the relational data model that filter expressions
// are compiled against.
//
// The model has two layers:
//
//   - Entity types: ordered declared properties, each with a primitive type,
//     plus navigation properties that point at another entity type through
//     an ordered list of referential constraints.
//   - Entity sets: a named, queryable relation backed by a table. An entity
//     set binds each navigation property of its type to a concrete target
//     entity set.
//
// Lambda quantifiers (any/all) need both layers: the navigation property
// supplies the constraints and the collection flag, the navigation binding
// supplies the target table.
//
// Example:
//
//	airport := model.NewEntityType("airport")
//	airport.AddProperty(model.NewProperty("code", model.String))
//
//	flight := model.NewEntityType("flight")
//	flight.AddProperty(model.NewProperty("origin", model.String))
//	nav := model.NewNavigationProperty("airports", airport, true)
//	nav.AddConstraint(flight.Property("origin"), airport.Property("code"))
//	flight.AddNavigationProperty(nav)
//
//	airports := model.NewEntitySet("airports", airport)
//	flights := model.NewEntitySet("flights", flight)
//	flights.AddBinding(nav, airports)
package model
