// Package control provides torque sources for the input link.
//
// Controllers implement [sim.Controller]:
//
//   - [Constant]: a fixed torque; zero is free spring-damper motion
//   - [PID]: drives the input angle toward a target angle
//
// Controllers implementing [sim.Configurable] support live tuning.
package control
